package event

// ProfileLoaded is published after a profile becomes the active configuration.
type ProfileLoaded struct {
	ProfileName string
	RuleCount   int
}

func NewProfileLoaded(profileName string, ruleCount int) *ProfileLoaded {
	return &ProfileLoaded{ProfileName: profileName, RuleCount: ruleCount}
}

func (e *ProfileLoaded) EventName() string {
	return "ProfileLoaded"
}

// ProfileSaved is published after a profile is persisted to the repository.
type ProfileSaved struct {
	ProfileName string
}

func NewProfileSaved(profileName string) *ProfileSaved {
	return &ProfileSaved{ProfileName: profileName}
}

func (e *ProfileSaved) EventName() string {
	return "ProfileSaved"
}

// PositionPicked is published when the user picks a screen position with the
// mouse, in response to a PickPosition command.
type PositionPicked struct {
	X, Y int
}

func NewPositionPicked(x, y int) *PositionPicked {
	return &PositionPicked{X: x, Y: y}
}

func (e *PositionPicked) EventName() string {
	return "PositionPicked"
}
