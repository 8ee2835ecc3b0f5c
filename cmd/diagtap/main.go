package main

import (
	diagtap "github.com/diagtap/diagtap/src"
)

func main() {
	diagtap.TapMain()
}
