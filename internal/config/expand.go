// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"mvdan.cc/sh/v3/shell"
)

// ExpandPaths expands $VAR and ${VAR} references in the directory fields
// as a shell would inside double quotes. Unset variables expand to "".
// A nil env reads the process environment. Command substitution is
// rejected.
func (c *Config) ExpandPaths(env func(string) string) error {
	expand := func(field, value string) (string, error) {
		if value == "" {
			return "", nil
		}
		out, err := shell.Expand(value, env)
		if err != nil {
			return "", fmt.Errorf("expand %s %q: %w", field, value, err)
		}
		return out, nil
	}

	var err error
	if c.InstallDir, err = expand("install_dir", c.InstallDir); err != nil {
		return err
	}
	if c.WorkDir, err = expand("work_dir", c.WorkDir); err != nil {
		return err
	}
	for i := range c.Extensions {
		field := fmt.Sprintf("extensions[%d].install_dir", i)
		if c.Extensions[i].InstallDir, err = expand(field, c.Extensions[i].InstallDir); err != nil {
			return err
		}
	}
	return nil
}
