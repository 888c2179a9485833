package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/sketchstory/internal/i18n"
	"github.com/ivlev/sketchstory/internal/provider"
	"github.com/ivlev/sketchstory/internal/settings"
	"github.com/ivlev/sketchstory/internal/studio"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show, change and test the persisted settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current settings with masked credentials",
	Args:  cobra.NoArgs,
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist one setting",
	Long: `Set persists one setting. Keys: ai-provider, openai-api-key, gemini-api-key,
grok-api-key, default-language, default-quality.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Run a small generation against the selected provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsTest,
}

var testAll bool

var settingKeys = []string{
	settings.KeyProvider,
	settings.KeyOpenAI,
	settings.KeyGemini,
	settings.KeyGrok,
	settings.KeyLanguage,
	settings.KeyQuality,
}

func init() {
	settingsTestCmd.Flags().BoolVar(&testAll, "all", false, "test every provider that has a key")

	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsTestCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := settings.Load(ctx, store)
	if err != nil {
		return err
	}
	m := v.Masked()
	rows := [][2]string{
		{settings.KeyProvider, m.Provider},
		{settings.KeyOpenAI, m.OpenAIKey},
		{settings.KeyGemini, m.GeminiKey},
		{settings.KeyGrok, m.GrokKey},
		{settings.KeyLanguage, m.Language},
		{settings.KeyQuality, m.Quality},
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-18s %s\n", r[0], r[1])
	}
	b.WriteString(dimStyle.Render(settings.StatusLine(v)))
	fmt.Fprintln(out, boxStyle.Render(b.String()))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	key, value := args[0], strings.TrimSpace(args[1])
	if !slices.Contains(settingKeys, key) {
		return fmt.Errorf("unknown setting %q (want one of %s)", key, strings.Join(settingKeys, ", "))
	}
	switch key {
	case settings.KeyProvider:
		if !slices.Contains(provider.Names(), value) {
			return fmt.Errorf("unknown provider %q", value)
		}
	case settings.KeyLanguage:
		value = i18n.Normalize(value)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Set(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	v, err := settings.Load(ctx, store)
	if err != nil {
		return err
	}
	success(out, "%s saved", key)
	info(out, "%s", settings.StatusLine(v))
	return nil
}

func runSettingsTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := context.Background()
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	v, err := settings.Load(ctx, store)
	if err != nil {
		return err
	}
	base := providerOptions(cfg)

	if testAll {
		results := settings.TestAll(ctx, v, base)
		if len(results) == 0 {
			warn(out, "%s", settings.StatusLine(v))
			return nil
		}
		failed := 0
		for _, r := range results {
			if r.OK {
				success(out, "%s", r.Message)
				continue
			}
			failed++
			fail(out, "%s", r.Message)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d providers failed", failed, len(results))
		}
		return nil
	}

	if !provider.RequiresKey(v.Provider) {
		info(out, "%s", settings.StatusLine(v))
		return nil
	}
	display := provider.DisplayName(v.Provider)
	if err := settings.TestConnection(ctx, v, base); err != nil {
		fail(out, "%s", i18n.T(v.Language, "TEST_FAILED", display, studio.UserMessage(err, v.Language)))
		return err
	}
	success(out, "%s", i18n.T(v.Language, "TEST_OK", display))
	return nil
}
