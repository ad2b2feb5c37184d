// Command contentd serves liveness-verified movie, TV, book, and live TV listings.
package main

import "github.com/grow-with-growth/growyourneed/cmd"

func main() {
	cmd.Execute()
}
