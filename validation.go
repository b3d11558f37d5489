package main

import "unicode"

func isValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 32 {
		return false
	}

	for _, r := range username {
		if r == '-' || r == '_' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}

	return true
}

func isValidPlayerID(playerID string) bool {
	if playerID == "" || len(playerID) > 64 {
		return false
	}

	for _, r := range playerID {
		if r == '-' || r == '_' {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		return false
	}

	return true
}

func isValidDisplayName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
