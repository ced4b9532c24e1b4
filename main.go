/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/Shavez90/Task-api/cmd"

func main() {
	cmd.Execute()
}
