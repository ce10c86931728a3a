package main

import "VirtualTourServer/cobra"

func main() {
	cobra.Execute()
}
