package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tanema/gween/ease"

	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/effects"
)

// ObjectID identifies an object added to a Surface
type ObjectID int

// Surface is the host drawing surface boundary
type Surface interface {
	Add(p Primitive) (ObjectID, error)
	Animate(id ObjectID, prop effects.Property, to float64, d time.Duration, fn ease.TweenFunc) error
	Clear()
	ObjectCount() int
	ExportStillImage() ([]byte, error)
}

// Adapter turns shape descriptors into animated surface objects.
// Failures are logged per shape and never propagate.
type Adapter struct {
	surface Surface
	effect  effects.Effect
	logger  *slog.Logger
}

// NewAdapter wires a surface to an entrance effect. A nil effect uses the default entrance.
func NewAdapter(s Surface, eff effects.Effect, logger *slog.Logger) *Adapter {
	if eff == nil {
		eff = effects.DefaultEntrance()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{surface: s, effect: eff, logger: logger}
}

// Draw adds one shape to the surface and starts its entrance animation.
func (a *Adapter) Draw(shape director.Shape) {
	if err := a.draw(shape); err != nil {
		if errors.Is(err, ErrUnknownKind) {
			a.logger.Warn("shape dropped", "kind", shape.Kind, "err", err)
			return
		}
		a.logger.Error("shape draw failed", "kind", shape.Kind, "err", err)
	}
}

func (a *Adapter) draw(shape director.Shape) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("surface panic: %v", r)
		}
	}()

	prim, err := Translate(shape)
	if err != nil {
		return err
	}

	init := a.effect.Initial()
	prim.Opacity = init.Opacity
	prim.Scale = init.Scale
	prim.Selectable = false
	prim.Evented = false

	id, err := a.surface.Add(prim)
	if err != nil {
		return fmt.Errorf("add %s: %w", prim.Kind, err)
	}

	if err := a.effect.Apply(objectTarget{surface: a.surface, id: id}); err != nil {
		return fmt.Errorf("animate object %d: %w", id, err)
	}
	a.logger.Debug("shape drawn", "kind", shape.Kind, "id", id)
	return nil
}

func (a *Adapter) Clear() {
	a.surface.Clear()
}

func (a *Adapter) ObjectCount() int {
	return a.surface.ObjectCount()
}

// Export returns the surface's current still image.
func (a *Adapter) Export() ([]byte, error) {
	return a.surface.ExportStillImage()
}

// objectTarget binds one surface object to the effects.Target interface
type objectTarget struct {
	surface Surface
	id      ObjectID
}

func (t objectTarget) Animate(prop effects.Property, to float64, d time.Duration, fn ease.TweenFunc) error {
	return t.surface.Animate(t.id, prop, to, d, fn)
}
