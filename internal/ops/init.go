package ops

// InitOutput contains the result of InitSettings.
type InitOutput struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
}

// InitSettings writes an empty settings document if the vault has none.
func InitSettings(env *Env) (*InitOutput, error) {
	created, err := env.Settings.Init()
	if err != nil {
		return nil, err
	}
	if created {
		env.logf("created %s", env.Settings.Path())
	}
	return &InitOutput{Path: env.Settings.Path(), Created: created}, nil
}
