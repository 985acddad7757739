// Command skulls is the trait registry and composition engine for
// generative NFT collections.
package main

import "github.com/baedrik/skulls2/internal/cli"

func main() {
	cli.Execute()
}
