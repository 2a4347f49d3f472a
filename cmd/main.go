package main

import (
	"fmt"
	"os"

	"github.com/ostafen/raidrescue/cmd/cmd"
	"github.com/ostafen/raidrescue/internal/env"
)

func main() {
	PrintLogo()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

// PrintLogo writes the banner to stderr, keeping stdout free for results
// (restore can stream the disk there).
func PrintLogo() {
	w := os.Stderr
	fmt.Fprintln(w, "           _     _                              ")
	fmt.Fprintln(w, " _ __ __ _(_) __| |_ __ ___  ___  ___ _   _  ___ ")
	fmt.Fprintln(w, "| '__/ _` | |/ _` | '__/ _ \\/ __|/ __| | | |/ _ \\")
	fmt.Fprintln(w, "| | | (_| | | (_| | | |  __/\\__ \\ (__| |_| |  __/")
	fmt.Fprintln(w, "|_|  \\__,_|_|\\__,_|_|  \\___||___/\\___|\\__,_|\\___|")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RAID5 recovery from disk images")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Version:   %s\n", env.Version)
	fmt.Fprintf(w, "Commit:    %s\n", env.CommitHash)
	fmt.Fprintf(w, "Build Time: %s\n", env.BuildTime)
	fmt.Fprintln(w, " ")
}
