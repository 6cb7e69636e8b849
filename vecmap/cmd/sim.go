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
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/vecmap/vecmap/sim"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "simulate a reference and error-bearing reads",
	Long: `simulate a reference and error-bearing reads

The reference is built by repeating a random 100-bp unit, making it
highly repetitive on purpose: repeated k-mers stress candidate
collection. Reads are sampled uniformly and mutated with per-base
substitutions, the truth is recorded next to the reads.

Output files in the output directory:
  ref.fasta     the reference sequence
  reads.fastq   simulated reads, constant quality
  truth.tsv     query, pos (1-based), errors

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		outDir := getFlagString(cmd, "out-dir")
		if outDir == "" {
			checkError(fmt.Errorf("flag -O/--out-dir needed"))
		}
		force := getFlagBool(cmd, "force")

		refLen := getFlagPositiveInt(cmd, "ref-len")
		numReads := getFlagPositiveInt(cmd, "num-reads")
		readLen := getFlagPositiveInt(cmd, "read-len")
		errorRate := getFlagFloat64(cmd, "error-rate")
		seed := getFlagInt64(cmd, "seed")
		nonOverlapping := getFlagBool(cmd, "non-overlapping")

		if readLen > refLen {
			checkError(fmt.Errorf("value of flag --read-len (%d) should be <= --ref-len (%d)", readLen, refLen))
		}

		makeOutDir(outDir, force, "out-dir", opt.Verbose)

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("vecmap v%s", VERSION)
			log.Info()
			log.Infof("simulating a %d-bp reference and %d %d-bp reads, error rate: %g",
				refLen, numReads, readLen, errorRate)
		}

		ref := sim.GenerateReference(refLen, seed)
		reads, err := sim.GenerateReads(ref, numReads, readLen, errorRate, seed, nonOverlapping)
		checkError(errors.Wrap(err, "simulating reads"))

		// ---------------------------------------------------------------
		// writing

		fileRef := filepath.Join(outDir, "ref.fasta")
		outfh, _, w, err := outStream(fileRef, false, opt.CompressionLevel)
		checkError(err)
		fmt.Fprintf(outfh, ">ref simulated, %d bp\n", len(ref))
		for i := 0; i < len(ref); i += 70 {
			end := i + 70
			if end > len(ref) {
				end = len(ref)
			}
			outfh.Write(ref[i:end])
			outfh.WriteByte('\n')
		}
		outfh.Flush()
		w.Close()

		// process bar
		var pbs *mpb.Progress
		var bar *mpb.Bar
		if opt.Verbose {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(reads)),
				mpb.PrependDecorators(
					decor.Name("written reads: ", decor.WC{W: len("written reads: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 10),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)
		}

		fileReads := filepath.Join(outDir, "reads.fastq")
		outfh, _, w, err = outStream(fileReads, false, opt.CompressionLevel)
		checkError(err)

		fileTruth := filepath.Join(outDir, "truth.tsv")
		outfhT, _, wT, err := outStream(fileTruth, false, opt.CompressionLevel)
		checkError(err)
		fmt.Fprintf(outfhT, "query\tpos\terrors\n")

		qual := make([]byte, readLen)
		for i := range qual {
			qual[i] = 'I'
		}

		for _, read := range reads {
			t := time.Now()

			fmt.Fprintf(outfh, "@%s\n%s\n+\n%s\n", read.ID, read.Seq, qual)
			fmt.Fprintf(outfhT, "%s\t%d\t%d\n", read.ID, read.Pos+1, read.Errors)

			if opt.Verbose {
				bar.EwmaIncrBy(1, time.Since(t))
			}
		}

		outfh.Flush()
		w.Close()
		outfhT.Flush()
		wT.Close()

		if opt.Verbose {
			pbs.Wait()
		}

		if outputLog {
			log.Infof("simulated data saved to: %s", outDir)
		}
	},
}

func init() {
	RootCmd.AddCommand(simCmd)

	simCmd.Flags().StringP("out-dir", "O", "",
		formatFlagUsage(`Output directory.`))
	simCmd.Flags().BoolP("force", "", false,
		formatFlagUsage(`Overwrite an existing non-empty output directory.`))

	simCmd.Flags().IntP("ref-len", "", 100000,
		formatFlagUsage(`Length of the simulated reference.`))
	simCmd.Flags().IntP("num-reads", "", 1000,
		formatFlagUsage(`Number of simulated reads.`))
	simCmd.Flags().IntP("read-len", "", 100,
		formatFlagUsage(`Length of simulated reads.`))
	simCmd.Flags().Float64P("error-rate", "", 0.01,
		formatFlagUsage(`Per-base substitution rate.`))
	simCmd.Flags().Int64P("seed", "", 11,
		formatFlagUsage(`Random seed.`))
	simCmd.Flags().BoolP("non-overlapping", "", false,
		formatFlagUsage(`Reject read positions overlapping a previously sampled read.`))

	simCmd.SetUsageTemplate(usageTemplate("-O outdir [--ref-len 100000] [--num-reads 1000]"))
}
