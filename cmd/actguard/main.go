// actguard — capability gate for browser automation.
// Routes sensitive actions through mode checks, confirmation prompts, and a
// tamper-evident audit log.
package main

import "github.com/okume/actguard/internal/cli"

func main() {
	cli.Execute()
}
