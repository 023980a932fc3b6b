package cli

// Flags holds all command-line flag values
type Flags struct {
	CfgFile string

	// Server flags
	Host      string
	Port      int
	UploadDir string
	PublicDir string

	// Logging flags
	LogLevel  string
	LogFormat string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		Port:      3000,
		UploadDir: "uploads",
		LogLevel:  "info",
		LogFormat: "console",
	}
}
