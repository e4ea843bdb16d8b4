// Command monoize is the multi-tenant LLM proxy's CLI entry point.
package main

import "github.com/monoize-go/monoize/cmd"

func main() {
	cmd.Execute()
}
