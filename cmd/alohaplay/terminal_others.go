// +build !linux

package main

import (
	"errors"
)

func openTerminal(fd int) (func(), error) {
	return nil, errors.New("keyboard control requires linux")
}
