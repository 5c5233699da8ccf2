package platform

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName    = "Campanula"
	appSlug    = "campanula"
	androidPkg = "moe.caelum.campanula"
)

type Kind int

const (
	Data Kind = iota
	Cache
	Config
)

// Dir returns the per-user directory of the given kind for the running OS.
func Dir(kind Kind) (string, error) {
	return dirFor(runtime.GOOS, kind, os.Getenv, os.UserHomeDir)
}

func GetDataDir() (string, error)   { return Dir(Data) }
func GetCacheDir() (string, error)  { return Dir(Cache) }
func GetConfigDir() (string, error) { return Dir(Config) }

func dirFor(goos string, kind Kind, getenv func(string) string, home func() (string, error)) (string, error) {
	switch goos {
	case "windows":
		return windowsDir(kind, getenv), nil
	case "android":
		root := "/data/data"
		if d := getenv("ANDROID_DATA"); d != "" {
			root = filepath.Join(d, "data")
		}
		sub := "files"
		if kind == Cache {
			sub = "cache"
		}
		return filepath.Join(root, androidPkg, sub), nil
	}

	h, err := home()
	if err != nil {
		return "", err
	}

	if goos == "darwin" {
		switch kind {
		case Cache:
			return filepath.Join(h, "Library", "Caches", appName), nil
		case Config:
			return filepath.Join(h, "Library", "Preferences", appName), nil
		default:
			return filepath.Join(h, "Library", "Application Support", appName), nil
		}
	}

	env, fallback := "XDG_DATA_HOME", filepath.Join(h, ".local", "share")
	switch kind {
	case Cache:
		env, fallback = "XDG_CACHE_HOME", filepath.Join(h, ".cache")
	case Config:
		env, fallback = "XDG_CONFIG_HOME", filepath.Join(h, ".config")
	}
	if d := getenv(env); d != "" {
		return filepath.Join(d, appSlug), nil
	}
	return filepath.Join(fallback, appSlug), nil
}

func windowsDir(kind Kind, getenv func(string) string) string {
	if kind == Cache {
		if d := getenv("LOCALAPPDATA"); d != "" {
			return filepath.Join(d, appName, "Cache")
		}
		return filepath.Join(getenv("USERPROFILE"), "AppData", "Local", appName, "Cache")
	}
	if d := getenv("APPDATA"); d != "" {
		return filepath.Join(d, appName)
	}
	return filepath.Join(getenv("USERPROFILE"), "AppData", "Roaming", appName)
}
