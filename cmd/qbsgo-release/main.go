// Command qbsgo-release cross-compiles qbsgo and packages it for every supported platform.
package main

import "github.com/oshokin/qbsgo-release/cmd/qbsgo-release/cmd"

func main() {
	cmd.Execute()
}
