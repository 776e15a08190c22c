package command

// SelectProfile sets the active profile (without starting monitoring).
type SelectProfile struct {
	baseProfileCommand
}

func NewSelectProfile(profileName string) *SelectProfile {
	return &SelectProfile{baseProfileCommand{profileName: profileName}}
}

func (c *SelectProfile) CommandName() string {
	return "SelectProfile"
}

// SaveProfile persists the named profile to the repository.
type SaveProfile struct {
	baseProfileCommand
}

func NewSaveProfile(profileName string) *SaveProfile {
	return &SaveProfile{baseProfileCommand{profileName: profileName}}
}

func (c *SaveProfile) CommandName() string {
	return "SaveProfile"
}

// ReloadProfiles re-reads all profiles from the repository and embedded defaults.
type ReloadProfiles struct{}

func (c *ReloadProfiles) CommandName() string {
	return "ReloadProfiles"
}
