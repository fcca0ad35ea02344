// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/pylayer/pylayer/cmd/pylayer"

func main() {
	cmd.Execute()
}
