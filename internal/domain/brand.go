package domain

// Brand is one content identity sharing the generation pipeline. SlotOffset
// shifts the brand's daily publication grid so no two brands share a
// wall-clock hour.
type Brand struct {
	ID               string
	Name             string
	SlotOffset       int
	DefaultPlatforms []Platform
	CredentialRef    string
	Active           bool
}
