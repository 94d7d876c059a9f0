package ops

import (
	"context"
	"slices"

	"github.com/dailyaf/vaultcap/internal/capsule"
	"github.com/dailyaf/vaultcap/internal/settings"
)

// ActivitiesInput contains parameters for ListActivities.
type ActivitiesInput struct {
	Type capsule.ActivityType // only this type when set
}

// ActivitiesOutput contains the derived activity list.
type ActivitiesOutput struct {
	Items []capsule.Activity `json:"items"`
}

// ListActivities returns the activities stored in the settings document.
func ListActivities(env *Env, input ActivitiesInput) (*ActivitiesOutput, error) {
	current, err := env.Settings.Load()
	if err != nil {
		return nil, err
	}
	items := make([]capsule.Activity, 0, len(current.Activities))
	for _, a := range current.Activities {
		if input.Type != "" && a.Type != input.Type {
			continue
		}
		items = append(items, a)
	}
	return &ActivitiesOutput{Items: items}, nil
}

// SyncActivitiesOutput contains the result of SyncActivities.
type SyncActivitiesOutput struct {
	Changed bool               `json:"changed"`
	Items   []capsule.Activity `json:"items"`
}

// SyncActivities recomputes activities from the installed capsules and the
// current manifest, repairing a list that was edited by hand.
func SyncActivities(ctx context.Context, env *Env) (*SyncActivitiesOutput, error) {
	manifest, err := env.Catalog.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	out := &SyncActivitiesOutput{}
	updated, err := env.Settings.Update(func(st *settings.Settings) error {
		next := capsule.ComputeActivities(st.InstalledIDs(), manifest.Capsules)
		out.Changed = !slices.EqualFunc(st.Activities, next, sameActivity)
		st.Activities = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Items = updated.Activities
	return out, nil
}

func sameActivity(a, b capsule.Activity) bool {
	return a.ID == b.ID && a.Name == b.Name && a.Label == b.Label &&
		a.Icon == b.Icon && a.Color == b.Color && a.Type == b.Type &&
		a.Unit == b.Unit && a.Field == b.Field &&
		sameFloat(a.Goal, b.Goal) && sameFloat(a.Increment, b.Increment)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
