// Command renovoctl administers a renovo installation: schema migrations,
// terminal reports and file based export and import.
package main

func main() {
	Execute()
}
