package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarly/consolidate/internal/discovery"
	"github.com/scholarly/consolidate/internal/paper"
)

var (
	verifyDir   string
	verifyInput string
)

func init() {
	verifyCmd.Flags().StringVar(&verifyDir, "dir", "", "Directory of downloaded PDFs")
	verifyCmd.Flags().StringVar(&verifyInput, "input", "", "Collection to cross-check DOIs against (JSONL)")
	verifyCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify downloaded PDFs against collection DOIs",
	Long: `Scan the first pages of each PDF in a directory for a DOI and, when a
collection is given, cross-check each extracted DOI against it.

Examples:
  consolidate verify --dir pdfs/
  consolidate verify --dir pdfs/ --input consolidated.jsonl`,
	RunE: runVerify,
}

// PDFReport is one PDF's verification outcome.
type PDFReport struct {
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	DOI     string `json:"doi,omitempty"`
	Matched string `json:"matched,omitempty"` // key of the matching paper
	Error   string `json:"error,omitempty"`
}

// VerifyResponse is the response for the verify command.
type VerifyResponse struct {
	Checked   int         `json:"checked"`
	WithDOI   int         `json:"with_doi"`
	Matched   int         `json:"matched,omitempty"`
	Unmatched int         `json:"unmatched,omitempty"`
	Reports   []PDFReport `json:"reports"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	byDOI := map[string]string{}
	crossCheck := verifyInput != ""
	if crossCheck {
		papers, err := paper.ReadAll(verifyInput)
		if err != nil {
			exitWithError(ExitDataError, "reading input: %v", err)
		}
		for _, p := range papers {
			if doi := p.Identifiers[paper.IDKindDOI]; doi != "" {
				byDOI[strings.ToLower(doi)] = p.Key
			}
		}
	}

	entries, err := os.ReadDir(verifyDir)
	if err != nil {
		exitWithError(ExitDataError, "reading directory: %v", err)
	}

	resp := VerifyResponse{Reports: []PDFReport{}}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		path := filepath.Join(verifyDir, e.Name())
		resp.Checked++

		rep := PDFReport{Path: path}
		res, err := discovery.VerifyFile(path)
		if err != nil {
			rep.Error = err.Error()
			resp.Reports = append(resp.Reports, rep)
			continue
		}
		rep.Pages = res.Pages
		rep.DOI = res.DOI
		if res.DOI != "" {
			resp.WithDOI++
			if crossCheck {
				if key, ok := byDOI[strings.ToLower(res.DOI)]; ok {
					rep.Matched = key
					resp.Matched++
				} else {
					resp.Unmatched++
				}
			}
		}
		resp.Reports = append(resp.Reports, rep)
	}

	if humanOutput {
		fmt.Printf("Checked %d PDFs, %d with a DOI\n", resp.Checked, resp.WithDOI)
		if crossCheck {
			fmt.Printf("Matched %d, unmatched %d\n", resp.Matched, resp.Unmatched)
		}
		for _, r := range resp.Reports {
			switch {
			case r.Error != "":
				fmt.Printf("  %s: error: %s\n", r.Path, r.Error)
			case r.DOI == "":
				fmt.Printf("  %s: no DOI found\n", r.Path)
			case r.Matched != "":
				fmt.Printf("  %s: %s -> %s\n", r.Path, r.DOI, r.Matched)
			default:
				fmt.Printf("  %s: %s\n", r.Path, r.DOI)
			}
		}
		return nil
	}
	return outputJSON(resp)
}
