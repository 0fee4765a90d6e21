// Command hashpass prints a bcrypt hash for ADMIN_PASSWORD_HASH.
//
//	hashpass 'my password'
//	echo 'my password' | hashpass
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/thetankguide/featuretank/pkg/bcrypt"
)

func main() {
	password, err := readPassword(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	hash, err := bcrypt.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return "", fmt.Errorf("password is empty")
	}
	return line, nil
}
