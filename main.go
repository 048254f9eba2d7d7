// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bundlerepo/bundlerepo/cmd/bundlerepo"

func main() {
	cmd.Execute()
}
