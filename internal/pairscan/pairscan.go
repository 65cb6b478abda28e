// Package pairscan discovers left/right capture pairs in a folder.
//
// Dual-camera rigs record twin files that differ only by an eye marker in
// the filename, e.g. "3D_L0042.MP4" and "3D_R0042.MP4". Scan matches those
// twins and reports anything left over so batch runs can log what was
// skipped.
package pairscan

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"parallax/internal/services"
)

// stemPattern splits a filename stem into prefix, eye marker, and clip
// number. The marker is uppercase by camera convention.
var stemPattern = regexp.MustCompile(`^(.*)([LR])(\d+)$`)

// Pair is a matched left/right source pair.
type Pair struct {
	// Name is the shared stem with the eye marker removed, used to derive
	// output filenames.
	Name      string
	LeftPath  string
	RightPath string
}

// Result holds everything Scan found in a folder.
type Result struct {
	Pairs []Pair
	// Unmatched are candidate files whose twin was missing.
	Unmatched []string
}

// Scan walks a single folder for capture pairs. Only files with one of the
// given extensions (lowercase, no dot) are considered. Pairs are returned
// sorted by name so batch processing order is stable.
func Scan(dir string, extensions []string) (Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "pairscan", "scan", dir, err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	type half struct {
		left  string
		right string
	}
	halves := make(map[string]*half)
	order := make([]string, 0)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if !allowed[ext] {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		match := stemPattern.FindStringSubmatch(stem)
		if match == nil {
			continue
		}
		key := match[1] + match[3] + "." + ext
		h, ok := halves[key]
		if !ok {
			h = &half{}
			halves[key] = h
			order = append(order, key)
		}
		path := filepath.Join(dir, name)
		if match[2] == "L" {
			h.left = path
		} else {
			h.right = path
		}
	}

	sort.Strings(order)
	var result Result
	for _, key := range order {
		h := halves[key]
		switch {
		case h.left != "" && h.right != "":
			stem := strings.TrimSuffix(filepath.Base(h.left), filepath.Ext(h.left))
			match := stemPattern.FindStringSubmatch(stem)
			result.Pairs = append(result.Pairs, Pair{
				Name:      match[1] + match[3],
				LeftPath:  h.left,
				RightPath: h.right,
			})
		case h.left != "":
			result.Unmatched = append(result.Unmatched, h.left)
		default:
			result.Unmatched = append(result.Unmatched, h.right)
		}
	}
	return result, nil
}

// OutputPath derives the output filename for a pair: the shared stem plus
// a parenthesized format tag, in outputDir, keeping the left source's
// container extension.
func (p Pair) OutputPath(outputDir, tag string) string {
	ext := filepath.Ext(p.LeftPath)
	return filepath.Join(outputDir, fmt.Sprintf("%s (%s)%s", p.Name, tag, ext))
}

// TaggedOutputPath derives the output filename for a single source file,
// inserting the format tag before the extension.
func TaggedOutputPath(source, outputDir, tag string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(outputDir, fmt.Sprintf("%s (%s)%s", stem, tag, ext))
}

// masterTags mark merged side-by-side masters, plain and rectified.
var masterTags = []string{" (SbS)", " (SbSr)"}

// ScanMasters finds side-by-side masters in a folder, i.e. outputs of a
// previous merge, identified by their filename tag. Results are sorted.
func ScanMasters(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "pairscan", "scan-masters", dir, err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var masters []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if !allowed[ext] {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		for _, tag := range masterTags {
			if strings.HasSuffix(stem, tag) {
				masters = append(masters, filepath.Join(dir, name))
				break
			}
		}
	}
	sort.Strings(masters)
	return masters, nil
}

// ConvertOutputPath derives the output filename for a conversion, replacing
// the source's merge tag with the target format tag. Untagged sources just
// gain the new tag.
func ConvertOutputPath(source, outputDir, tag string) string {
	base := filepath.Base(source)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	for _, master := range masterTags {
		stem = strings.TrimSuffix(stem, master)
	}
	return TaggedOutputPath(stem+ext, outputDir, tag)
}

// ShouldSkip reports whether output generation should be skipped because
// the target already exists and overwriting is disabled.
func ShouldSkip(outputPath string, overwrite bool) bool {
	if overwrite {
		return false
	}
	info, err := os.Stat(outputPath)
	return err == nil && !info.IsDir()
}
