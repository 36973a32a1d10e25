// Package main implements the netscope CLI.
package main

func main() {
	Execute()
}
