// The main package for the pageinsights executable.
package main

import "pageinsights/cmd"

func main() {
	cmd.Execute()
}
