package paths

import (
	"os"
	"path/filepath"
)

func home() string {
	h, _ := os.UserHomeDir()
	return h
}

// DataDir returns $PROFILEPOP_HOME, or ~/.profilepop when unset.
func DataDir() string {
	if dir := os.Getenv("PROFILEPOP_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(home(), ".profilepop")
}

// ConfigFile returns ~/.profilepop/config.yaml.
func ConfigFile() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// EnvFile returns ~/.profilepop/.env.
func EnvFile() string {
	return filepath.Join(DataDir(), ".env")
}

// StateFile returns ~/.profilepop/state.json, used by the file storage backend.
func StateFile() string {
	return filepath.Join(DataDir(), "state.json")
}

// DatabaseFile returns ~/.profilepop/profilepop.db, used by the sqlite backend.
func DatabaseFile() string {
	return filepath.Join(DataDir(), "profilepop.db")
}

// HostDir returns ~/.profilepop/host, where the desktop host adapter keeps
// the applied theme and extension states.
func HostDir() string {
	return filepath.Join(DataDir(), "host")
}

// LogFile returns ~/.profilepop/profilepop.log.
func LogFile() string {
	return filepath.Join(DataDir(), "profilepop.log")
}
