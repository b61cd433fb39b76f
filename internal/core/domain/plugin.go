package domain

import "strings"

// PluginExpectationProfile describes which components a plugin is expected
// to register on the instance.
type PluginExpectationProfile struct {
	ExpectIndexer        bool
	ExpectDownloadClient bool
	ExpectImportList     bool

	// IndexerID pins the plugin to a configured indexer. Zero means unset.
	IndexerID int
}

// Built-in plugin names.
const (
	PluginQobuzarr = "qobuzarr"
	PluginTidalarr = "tidalarr"
	PluginBrainarr = "brainarr"
)

// DefaultPluginProfile is used for plugins without a known profile.
func DefaultPluginProfile() PluginExpectationProfile {
	return PluginExpectationProfile{
		ExpectIndexer:        true,
		ExpectDownloadClient: true,
	}
}

// BuiltinPluginProfiles returns the profiles of the known plugins.
// A fresh map is returned on every call.
func BuiltinPluginProfiles() map[string]PluginExpectationProfile {
	return map[string]PluginExpectationProfile{
		PluginQobuzarr: {ExpectIndexer: true, ExpectDownloadClient: true},
		PluginTidalarr: {ExpectIndexer: true, ExpectDownloadClient: true},
		PluginBrainarr: {ExpectImportList: true},
	}
}

// LookupPluginProfile finds a profile by plugin name, ignoring case.
func LookupPluginProfile(profiles map[string]PluginExpectationProfile, plugin string) (PluginExpectationProfile, bool) {
	if p, ok := profiles[plugin]; ok {
		return p, true
	}
	key := strings.ToLower(strings.TrimSpace(plugin))
	for name, p := range profiles {
		if strings.ToLower(name) == key {
			return p, true
		}
	}
	return PluginExpectationProfile{}, false
}

// ParsePluginList splits a comma-separated plugin list, dropping blanks and
// duplicates while keeping order.
func ParsePluginList(s string) []string {
	var plugins []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		plugins = append(plugins, name)
	}
	return plugins
}
