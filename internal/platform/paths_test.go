package platform

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func fakeHome() (string, error) { return "/home/user", nil }

func TestDirFor(t *testing.T) {
	tests := []struct {
		name string
		goos string
		kind Kind
		env  map[string]string
		want string
	}{
		{"linux data", "linux", Data, nil, "/home/user/.local/share/campanula"},
		{"linux cache xdg", "linux", Cache, map[string]string{"XDG_CACHE_HOME": "/tmp/xdg"}, "/tmp/xdg/campanula"},
		{"linux config", "linux", Config, nil, "/home/user/.config/campanula"},
		{"darwin cache", "darwin", Cache, nil, "/home/user/Library/Caches/Campanula"},
		{"darwin config", "darwin", Config, nil, "/home/user/Library/Preferences/Campanula"},
		{"android cache", "android", Cache, nil, "/data/data/moe.caelum.campanula/cache"},
		{"android data env", "android", Data, map[string]string{"ANDROID_DATA": "/data"}, "/data/data/moe.caelum.campanula/files"},
		{"windows cache", "windows", Cache, map[string]string{"LOCALAPPDATA": "C:/Local"}, filepath.Join("C:/Local", "Campanula", "Cache")},
		{"windows config", "windows", Config, map[string]string{"APPDATA": "C:/Roaming"}, filepath.Join("C:/Roaming", "Campanula")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dirFor(tt.goos, tt.kind, fakeEnv(tt.env), fakeHome)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), filepath.FromSlash(got))
		})
	}
}

func TestDirFor_HomeError(t *testing.T) {
	noHome := func() (string, error) { return "", errors.New("no home") }
	_, err := dirFor("linux", Data, fakeEnv(nil), noHome)
	assert.Error(t, err)

	got, err := dirFor("android", Data, fakeEnv(nil), noHome)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}
