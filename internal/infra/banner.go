package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset = "\033[0m"
	ColorGreen = "\033[32m"
	ColorCyan  = "\033[36m"
)

// PrintBanner displays the startup banner.
func PrintBanner(cfg *Config) {
	color := ColorCyan

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#               🔍 Tokenscope Inspector                   #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   VERSION: %-36s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   CHAINS:  %-36d #%s\n", color, len(cfg.Chains), ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
