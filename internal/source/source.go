// =============================================================================
// DIAN Invoice Consolidator - Document Sources
// =============================================================================
//
// This module turns the files an operator drops in the input folders into
// the explicit document list the batch orchestrator consumes.
//
// SUPPORTED INPUTS:
//   - ZIP archives as delivered by DIAN-enabled billing providers. Each
//     archive usually holds one XML (the AttachedDocument) and one PDF.
//     Every .xml entry becomes a Document; other entries are ignored.
//   - Loose XML files.
//
// DOCUMENT IDS:
//   Archive entries are named "<archive file name>!<entry path>", loose
//   files by their path. IDs are what the operator sees in the error log.
//
// FAILURES:
//   An archive that cannot be opened, or an entry that cannot be read,
//   becomes a Document with Err set. The batch reports it like any other
//   malformed document.
//
// =============================================================================

package source

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ginjaninja78/dian-invoice-consolidator/internal/batch"
)

// MaxEntrySize bounds the uncompressed size of one archive entry. Real
// invoices are a few hundred kilobytes.
const MaxEntrySize int64 = 64 << 20

// ErrEntryTooLarge is returned for entries larger than MaxEntrySize.
var ErrEntryTooLarge = errors.New("archive entry exceeds size limit")

// FromArchives reads every XML entry of every archive, in the order the
// archives are given and, within an archive, in entry-name order.
func FromArchives(paths []string) []batch.Document {
	var docs []batch.Document
	for _, p := range paths {
		docs = append(docs, readArchive(p)...)
	}
	return docs
}

// FromFiles reads loose XML files in the order given.
func FromFiles(paths []string) []batch.Document {
	docs := make([]batch.Document, 0, len(paths))
	for _, p := range paths {
		data, err := readLimited(p)
		if err != nil {
			docs = append(docs, batch.Document{ID: p, Err: err})
			continue
		}
		docs = append(docs, batch.Document{ID: p, Data: data})
	}
	return docs
}

// IsXML reports whether name has an .xml extension.
func IsXML(name string) bool {
	return strings.EqualFold(path.Ext(name), ".xml")
}

func readArchive(archivePath string) []batch.Document {
	base := filepath.Base(archivePath)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return []batch.Document{{ID: base, Err: fmt.Errorf("cannot open archive: %w", err)}}
	}
	defer r.Close()

	entries := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !IsXML(f.Name) || isMetadata(f.Name) {
			continue
		}
		entries = append(entries, f)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	docs := make([]batch.Document, 0, len(entries))
	for _, f := range entries {
		id := base + "!" + f.Name
		data, err := readEntry(f)
		if err != nil {
			docs = append(docs, batch.Document{ID: id, Err: err})
			continue
		}
		docs = append(docs, batch.Document{ID: id, Data: data})
	}
	return docs
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > uint64(MaxEntrySize) {
		return nil, ErrEntryTooLarge
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open archive entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read archive entry: %w", err)
	}
	if int64(len(data)) > MaxEntrySize {
		return nil, ErrEntryTooLarge
	}
	return data, nil
}

func readLimited(p string) ([]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}
	if int64(len(data)) > MaxEntrySize {
		return nil, ErrEntryTooLarge
	}
	return data, nil
}

// isMetadata skips resource forks added by macOS archivers.
func isMetadata(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}
