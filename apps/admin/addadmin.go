package main

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
)

// addAdmin prints the ADMIN_ACCOUNTS config entry for a new privileged
// account. Only the bcrypt hash is ever stored in configuration.
func (cli *commandLine) addAdmin(email, name, pwd string) error {
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	if strings.ContainsRune(email, ':') || strings.ContainsRune(name, ':') {
		return fmt.Errorf("email and name must not contain %q", ':')
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	fmt.Println("Append this entry to ADMIN_ACCOUNTS (comma separated):")
	fmt.Printf("%s:%s:%s\n", email, name, hash)
	return nil
}
