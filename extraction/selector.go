package extraction

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spatialops/planet-extractor/common"
)

const maxSelectionAttempts = 3

// ErrEmptyResult is returned when the search yielded no scene to select from.
const ErrEmptyResult = selectionErr("search returned no scene")

// ErrSkipped is returned when the user skipped the selection.
const ErrSkipped = selectionErr("selection skipped")

// ErrSelection is returned after too many invalid interactive inputs.
const ErrSelection = selectionErr("no valid selection")

type selectionErr string

func (e selectionErr) Error() string { return string(e) }

// ErrNotFound is returned when the requested scene id is not in the results.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("scene %s not found in search results", e.ID)
}

// SelectScene picks exactly one scene out of the search results.
// An explicit itemID wins in both modes and must exist in the results.
// Otherwise, with prompt, the user picks from a numbered listing read from
// in (ENTER keeps the first scene, "s" skips); without prompt the first
// scene is selected.
func SelectScene(scenes []common.Scene, itemID string, prompt bool, in io.Reader, out io.Writer) (common.Scene, error) {
	if len(scenes) == 0 {
		return common.Scene{}, ErrEmptyResult
	}

	if itemID = strings.TrimSpace(itemID); itemID != "" {
		for _, scene := range scenes {
			if scene.ID == itemID {
				return scene, nil
			}
		}
		return common.Scene{}, ErrNotFound{itemID}
	}

	if !prompt {
		return scenes[0], nil
	}

	fmt.Fprintln(out, "\nAvailable scenes:")
	for i, scene := range scenes {
		fmt.Fprintf(out, "%2d. %s | %s | CC=%g | %s\n",
			i+1, scene.ID, scene.Acquired.Format("2006-01-02 15:04:05"), scene.CloudCover, scene.ItemType)
	}

	reader := bufio.NewReader(in)
	for attempt := 0; attempt < maxSelectionAttempts; attempt++ {
		fmt.Fprint(out, "Enter index to order (ENTER = first, 's' = skip): ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return common.Scene{}, ErrSelection
		}
		switch pick := strings.ToLower(strings.TrimSpace(line)); pick {
		case "":
			return scenes[0], nil
		case "s":
			return common.Scene{}, ErrSkipped
		default:
			if idx, err := strconv.Atoi(pick); err == nil && idx >= 1 && idx <= len(scenes) {
				return scenes[idx-1], nil
			}
			fmt.Fprintf(out, "invalid selection %q\n", pick)
		}
	}
	return common.Scene{}, ErrSelection
}
