package util

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// AutoConfirm, set from gdbflash's --yes flag, answers every confirmation
// prompt affirmatively without touching stdin. It exists for scripted
// flashing runs (CI jigs, batch-programming rigs) where no terminal is
// attached to answer an interactive prompt.
var AutoConfirm bool

func readConfirmAnswer() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// Confirm asks a plain yes/no question, accepting "y" or "yes".
func Confirm(prompt string) bool {
	if AutoConfirm {
		return true
	}
	fmt.Print(prompt)
	answer, err := readConfirmAnswer()
	if err != nil {
		return false
	}
	return answer == "y" || answer == "yes"
}

// ConfirmDanger gates a destructive flash operation (sector/mass erase,
// whole-image programming) behind an explicitly typed "yes". AutoConfirm
// bypasses it for non-interactive use.
func ConfirmDanger(operation string) bool {
	if AutoConfirm {
		return true
	}
	fmt.Printf("\nWARNING: about to %s.\n", operation)
	fmt.Println("The target's flash contents cannot be recovered once this starts.")
	fmt.Print("\nType 'yes' to continue: ")
	answer, err := readConfirmAnswer()
	if err != nil {
		return false
	}
	return answer == "yes"
}
