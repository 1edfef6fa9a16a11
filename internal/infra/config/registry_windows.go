//go:build windows

package config

import "golang.org/x/sys/windows/registry"

// wowRegistryKeys lists the install-metadata keys Blizzard's launcher
// writes, checked in order; the retail and classic installers use distinct
// subkeys.
var wowRegistryKeys = []string{
	`SOFTWARE\WOW6432Node\Blizzard Entertainment\World of Warcraft`,
	`SOFTWARE\Blizzard Entertainment\World of Warcraft`,
}

// readWowPathFromRegistry queries HKEY_LOCAL_MACHINE for the game's
// install-metadata key, per §4.J's first discovery tier.
func readWowPathFromRegistry() (string, bool) {
	for _, path := range wowRegistryKeys {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		value, _, err := key.GetStringValue("InstallPath")
		key.Close()
		if err == nil && value != "" {
			return value, true
		}
	}
	return "", false
}
