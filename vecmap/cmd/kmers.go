// Copyright © 2024-2025 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/vecmap/vecmap/index"
	"github.com/spf13/cobra"
)

var kmersCmd = &cobra.Command{
	Use:   "kmers",
	Short: "dump the k-mer index of a reference sequence",
	Long: `dump the k-mer index of a reference sequence

The index is printed as one line per distinct k-mer, with its
occurrence count and all its start positions (1-based, ascending).
Only available for k <= 32.

Output (TSV):
  kmer, count, positions

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
		}()

		refFile := getFlagString(cmd, "reference")
		if refFile == "" {
			checkError(fmt.Errorf("flag -r/--reference needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		cfg := getConfig()
		k := getFlagPositiveInt(cmd, "kmer-len")
		if !cmd.Flags().Changed("kmer-len") && cfg.K > 0 {
			k = cfg.K
		}

		refID, refSeq := readSingleRecord(refFile)
		if outputLog {
			log.Infof("reference %s loaded: %d bp", refID, len(refSeq))
		}

		idx, err := index.NewIndex(refSeq, k)
		checkError(errors.Wrap(err, "building the k-mer index"))

		if outputLog {
			log.Infof("%d distinct %d-mers indexed", idx.NumKmers(), k)
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		fmt.Fprintf(outfh, "kmer\tcount\tpositions\n")

		var buf strings.Builder
		err = idx.WalkKmers(func(kmer []byte, positions []int) bool {
			buf.Reset()
			for i, p := range positions {
				if i > 0 {
					buf.WriteByte(',')
				}
				buf.WriteString(strconv.Itoa(p + 1))
			}
			fmt.Fprintf(outfh, "%s\t%d\t%s\n", kmer, len(positions), buf.String())
			return true
		})
		checkError(err)
	},
}

func init() {
	RootCmd.AddCommand(kmersCmd)

	kmersCmd.Flags().StringP("reference", "r", "",
		formatFlagUsage(`Reference sequence (FASTA format, optionally gzipped).`))

	kmersCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports and recommends a ".gz" suffix ("-" for stdout).`))

	kmersCmd.Flags().IntP("kmer-len", "k", 20,
		formatFlagUsage(`K-mer length, <= 32.`))

	kmersCmd.SetUsageTemplate(usageTemplate("-r ref.fasta [-k 20] [-o kmers.tsv.gz]"))
}
