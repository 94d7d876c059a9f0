package ops

import (
	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/errors"
	"github.com/dailyaf/vaultcap/internal/settings"
)

// Module move directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// ModulesOutput lists installed-modules in display order.
type ModulesOutput struct {
	Items []capsule.Module `json:"items"`
}

// ListModules returns the module bar from the settings document.
func ListModules(env *Env) (*ModulesOutput, error) {
	current, err := env.Settings.Load()
	if err != nil {
		return nil, err
	}
	return &ModulesOutput{Items: current.Modules}, nil
}

// MoveModuleInput contains parameters for MoveModule.
type MoveModuleInput struct {
	ID        string // required
	Direction string // "up" or "down"
}

// MoveModuleOutput contains the result of MoveModule.
type MoveModuleOutput struct {
	Moved bool             `json:"moved"`
	Items []capsule.Module `json:"items"`
}

// MoveModule swaps a module with its neighbour. Moving past either end is a no-op.
func MoveModule(env *Env, input MoveModuleInput) (*MoveModuleOutput, error) {
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	var delta int
	switch input.Direction {
	case DirectionUp:
		delta = -1
	case DirectionDown:
		delta = 1
	default:
		return nil, errors.NewInvalidRequest("direction must be one of: up, down")
	}

	out := &MoveModuleOutput{}
	updated, err := env.Settings.Update(func(st *settings.Settings) error {
		moved, err := st.MoveModule(input.ID, delta)
		if err != nil {
			return errors.NewInvalidRequest(err.Error())
		}
		out.Moved = moved
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Items = updated.Modules
	return out, nil
}

// SetModuleOrderInput contains parameters for SetModuleOrder.
type SetModuleOrderInput struct {
	IDs []string
}

// SetModuleOrder rewrites the module order. Unknown ids are ignored and
// unlisted modules keep their relative order after the listed ones.
func SetModuleOrder(env *Env, input SetModuleOrderInput) (*ModulesOutput, error) {
	if len(input.IDs) == 0 {
		return nil, errors.NewInvalidRequest("ids must not be empty")
	}
	updated, err := env.Settings.Update(func(st *settings.Settings) error {
		st.SetModuleOrder(input.IDs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ModulesOutput{Items: updated.Modules}, nil
}
