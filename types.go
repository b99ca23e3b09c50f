package main

// Options holds command-line parameters shared by all commands
type Options struct {
	Path        string
	KeyfilePath string
	OutPath     string
	LogDir      string

	SecureDelete bool
	AssumeYes    bool // skip the large-folder confirmation
	Extract      bool
	Verbose      bool
}
