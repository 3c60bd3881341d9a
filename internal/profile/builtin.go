package profile

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Builtin decodes the profiles shipped with the binary, in file name
// order.
func Builtin() ([]*EncodingProfile, error) {
	names, err := fs.Glob(builtinFS, "builtin/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to list built-in profiles: %w", err)
	}
	sort.Strings(names)

	profiles := make([]*EncodingProfile, 0, len(names))
	for _, name := range names {
		data, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in profile %s: %w", name, err)
		}
		p, err := Decode(data, "builtin:"+path.Base(name))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
