package provider

import (
	"context"
	"strings"
)

// Category is the topic class used to pick a demo template
type Category string

const (
	CategoryBusiness   Category = "business"
	CategoryEducation  Category = "education"
	CategoryMarketing  Category = "marketing"
	CategoryTechnology Category = "technology"
	CategoryGeneric    Category = "generic"
)

var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryBusiness, []string{"startup", "biznes", "firma", "business", "company"}},
	{CategoryEducation, []string{"edukacj", "nauka", "jak działa", "educat", "learn", "how does"}},
	{CategoryMarketing, []string{"marketing", "sprzedaż", "klient", "sales", "customer"}},
	{CategoryTechnology, []string{"technolog", "app", "kod", "code", "software"}},
}

// Classify picks the first category whose keyword occurs in the topic.
func Classify(topic string) Category {
	lower := strings.ToLower(topic)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.category
			}
		}
	}
	return CategoryGeneric
}

// Demo builds scripts from fixed templates. It never fails and never does I/O.
type Demo struct {
	locale string
}

func NewDemo(locale string) *Demo {
	return &Demo{locale: locale}
}

func (d *Demo) Name() string { return NameDemo }

func (d *Demo) Generate(ctx context.Context, req Request) (string, error) {
	locale := req.Locale
	if locale == "" {
		locale = d.locale
	}
	return Script(req.Topic, locale), nil
}

// Script renders the demo template for topic. Every template has four
// blank-line separated sections and the first one is the title line.
func Script(topic, locale string) string {
	topic = strings.TrimSpace(topic)
	set := demoPL
	if strings.HasPrefix(strings.ToLower(locale), "en") {
		set = demoEN
	}
	t := set[Classify(topic)]
	return strings.Replace(t, "{topic}", topic, 1)
}

var demoPL = map[Category]string{
	CategoryBusiness: `🚀 {topic}

Pomysł
- Narysuj ikonę żarówki jako symbol pomysłu
- Dodaj tekst "Wielka idea zaczyna się tutaj"
- Pokaż strzałkę w stronę rozwoju

Plan
- Narysuj diagram z kluczowymi krokami
- Połącz etapy linią procesu
- Dodaj ramkę z budżetem

Wzrost
- Stwórz wykres rosnącej sprzedaży
- Narysuj zespół wokół celu
- Zakończ hasłem "Działaj już dziś!"
💡 To scenariusz demo. Połącz się z AI po lepsze wyniki.`,

	CategoryEducation: `📚 {topic}

Pytanie
- Narysuj znak zapytania w centrum
- Dodaj ikonę książki obok
- Pokaż strzałkę prowadzącą do odpowiedzi

Wyjaśnienie
- Narysuj diagram z trzema krokami
- Połącz pojęcia linią
- Dodaj ramkę z definicją

Podsumowanie
- Stwórz wykres postępów w nauce
- Narysuj gwiazdkę przy najważniejszym wniosku
- Zakończ pytaniem do widza
💡 To scenariusz demo. Połącz się z AI po lepsze wyniki.`,

	CategoryMarketing: `📈 {topic}

Klient
- Narysuj ikonę osoby z dymkiem
- Dodaj tekst "Czego potrzebuje klient?"
- Pokaż strzałkę do produktu

Kampania
- Narysuj diagram lejka sprzedaży
- Połącz kanały linią
- Dodaj ramkę z przekazem

Wyniki
- Stwórz wykres konwersji
- Narysuj trofeum przy celu
- Zakończ wezwaniem do działania
💡 To scenariusz demo. Połącz się z AI po lepsze wyniki.`,

	CategoryTechnology: `💻 {topic}

Problem
- Narysuj ikonę komputera z błędem
- Dodaj tekst "Jak to naprawić?"
- Pokaż strzałkę do rozwiązania

Architektura
- Narysuj diagram modułów systemu
- Połącz usługi liniami
- Dodaj ramkę z bazą danych

Wdrożenie
- Stwórz wykres wydajności
- Narysuj rakietę startującą w chmurę
- Zakończ listą kolejnych kroków
💡 To scenariusz demo. Połącz się z AI po lepsze wyniki.`,

	CategoryGeneric: `✨ {topic}

Wstęp
- Narysuj ikonę przedstawiającą temat
- Dodaj tekst z głównym pytaniem
- Pokaż strzałkę do pierwszej myśli

Rozwinięcie
- Narysuj diagram najważniejszych elementów
- Połącz je linią zależności
- Dodaj ramkę z przykładem

Zakończenie
- Stwórz wykres z kluczowymi liczbami
- Narysuj gwiazdkę przy wniosku
- Zakończ krótkim podsumowaniem
💡 To scenariusz demo. Połącz się z AI po lepsze wyniki.`,
}

var demoEN = map[Category]string{
	CategoryBusiness: `🚀 {topic}

Idea
- Draw a light bulb icon for the idea
- Add the text "Big ideas start here"
- Show an arrow pointing to growth

Plan
- Draw a diagram with the key steps
- Connect the stages with a process line
- Add a box with the budget

Growth
- Create a chart of rising sales
- Draw the team around the goal
- Finish with "Start today!"
💡 This is a demo script. Connect an AI provider for better results.`,

	CategoryEducation: `📚 {topic}

Question
- Draw a question mark in the center
- Add a book icon next to it
- Show an arrow leading to the answer

Explanation
- Draw a diagram with three steps
- Connect the concepts with a line
- Add a box with the definition

Summary
- Create a chart of learning progress
- Draw a star next to the key insight
- Finish with a question for the viewer
💡 This is a demo script. Connect an AI provider for better results.`,

	CategoryMarketing: `📈 {topic}

Customer
- Draw a person icon with a speech bubble
- Add the text "What does the customer need?"
- Show an arrow to the product

Campaign
- Draw a diagram of the sales funnel
- Connect the channels with a line
- Add a box with the message

Results
- Create a chart of conversions
- Draw a trophy next to the goal
- Finish with a call to action
💡 This is a demo script. Connect an AI provider for better results.`,

	CategoryTechnology: `💻 {topic}

Problem
- Draw a computer icon showing an error
- Add the text "How do we fix it?"
- Show an arrow to the solution

Architecture
- Draw a diagram of the system modules
- Connect the services with lines
- Add a box for the database

Rollout
- Create a chart of performance
- Draw a rocket launching into the cloud
- Finish with the next steps
💡 This is a demo script. Connect an AI provider for better results.`,

	CategoryGeneric: `✨ {topic}

Intro
- Draw an icon for the topic
- Add the text with the main question
- Show an arrow to the first thought

Body
- Draw a diagram of the key elements
- Connect them with a dependency line
- Add a box with an example

Summary
- Create a chart with the key numbers
- Draw a star next to the conclusion
- Finish with a short recap
💡 This is a demo script. Connect an AI provider for better results.`,
}
