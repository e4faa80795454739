/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ayoubnajjout/ai-linux-cmd-assistant/cmd"

func main() {
	cmd.Execute()
}
