package audio

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// SelectDevice runs the -setup microphone picker on the raw terminal.
// With a single device there is nothing to pick and it is returned
// directly. Bluetooth microphones are flagged because they capture at
// headset quality.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, fmt.Errorf("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	draw := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Pick a microphone (↑/↓ or j/k, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[BT: reduced quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf(" \x1b[1;36m▶ %s\x1b[0m%s\r\n", d.Name, tag)
			} else {
				fmt.Printf("   %s%s\r\n", d.Name, tag)
			}
		}
	}
	draw()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		up, down := false, false
		switch {
		case n == 1 && buf[0] == '\r':
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			return &devices[cursor], nil
		case n == 1 && buf[0] == 3: // ctrl+c
			fmt.Print("\r\n")
			term.Restore(fd, oldState)
			os.Exit(130)
		case n == 1 && buf[0] == 'k':
			up = true
		case n == 1 && buf[0] == 'j':
			down = true
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'A':
			up = true
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'B':
			down = true
		}

		if up && cursor > 0 {
			cursor--
		}
		if down && cursor < len(devices)-1 {
			cursor++
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		draw()
	}
}
