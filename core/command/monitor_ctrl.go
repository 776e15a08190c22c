package command

// StartMonitoring starts the monitor loop with the named profile.
type StartMonitoring struct {
	baseProfileCommand
}

func NewStartMonitoring(profileName string) *StartMonitoring {
	return &StartMonitoring{baseProfileCommand{profileName: profileName}}
}

func (c *StartMonitoring) CommandName() string {
	return "StartMonitoring"
}

// StopMonitoring stops the monitor loop.
type StopMonitoring struct{}

func (c *StopMonitoring) CommandName() string {
	return "StopMonitoring"
}

// PickPosition asks the application to capture the next mouse click position.
// The result is delivered as a PositionPicked event.
type PickPosition struct {
	TimeoutSeconds int
}

func NewPickPosition(timeoutSeconds int) *PickPosition {
	return &PickPosition{TimeoutSeconds: timeoutSeconds}
}

func (c *PickPosition) CommandName() string {
	return "PickPosition"
}
