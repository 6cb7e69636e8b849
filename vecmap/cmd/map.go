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
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/vecmap/vecmap/index"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "map reads against a reference sequence",
	Long: `map reads against a reference sequence

Attentions:
  1. Input format should be (gzipped) FASTA or FASTQ from files or stdin.
  2. Only substitutions are tolerated. A read is reported at the
     reference position with the minimum number of mismatches; ties go
     to the lowest position.
  3. Reads sharing no k-mer with the reference are reported as
     unmapped (pos and mismatches of -1), not dropped.
  4. The positions in the output are 1-based.

Output (TSV):
  query, qlen, pos, mismatches, candidates

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}

		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Info()
				log.Infof("elapsed time: %s", time.Since(timeStart))
				log.Info()
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		// ---------------------------------------------------------------

		cfg := getConfig()

		refFile := getFlagString(cmd, "reference")
		if refFile == "" {
			checkError(fmt.Errorf("flag -r/--reference needed"))
		}
		outFile := getFlagString(cmd, "out-file")

		k := getFlagPositiveInt(cmd, "kmer-len")
		if !cmd.Flags().Changed("kmer-len") && cfg.K > 0 {
			k = cfg.K
		}

		offsets := getFlagIntSlice(cmd, "seed-offsets")
		if !cmd.Flags().Changed("seed-offsets") && len(cfg.Offsets) > 0 {
			offsets = cfg.Offsets
		}

		maxReads := getFlagNonNegativeInt(cmd, "max-reads")

		// ---------------------------------------------------------------

		if outputLog {
			log.Infof("vecmap v%s", VERSION)
			log.Info("  https://github.com/shenwei356/vecmap")
			log.Info()
		}

		// ---------------------------------------------------------------
		// input files

		if outputLog {
			log.Info("checking input files ...")
		}

		files := getFileList(args, opt.NumCPUs)
		if infileList := getFlagString(cmd, "infile-list"); infileList != "" {
			fs, err := getFileListFromFile(infileList)
			checkError(err)
			if len(args) == 0 { // drop the implicit stdin
				files = fs
			} else {
				files = append(files, fs...)
			}
		}

		if outputLog {
			if len(files) == 1 && isStdin(files[0]) {
				log.Info("  no files given, reading from stdin")
			} else {
				log.Infof("  %d input file(s) given", len(files))
			}
		}

		outFileClean := filepath.Clean(outFile)
		for _, file := range files {
			if !isStdin(file) && filepath.Clean(file) == outFileClean {
				checkError(fmt.Errorf("out file should not be one of the input file"))
			}
		}

		// ---------------------------------------------------------------
		// building the index

		if outputLog {
			log.Info()
			log.Infof("loading reference: %s", refFile)
		}

		refID, refSeq := readSingleRecord(refFile)

		if outputLog {
			log.Infof("  reference %s loaded: %d bp", refID, len(refSeq))
		}

		idx, err := index.NewIndex(refSeq, k)
		checkError(errors.Wrap(err, "building the k-mer index"))
		checkError(idx.SetSearchOptions(&index.SearchOptions{Offsets: offsets}))

		if outputLog {
			log.Infof("  %d distinct %d-mers indexed in %s", idx.NumKmers(), k, time.Since(timeStart))
			log.Info()
			log.Info("mapping ...")
		}

		// ---------------------------------------------------------------
		// mapping

		timeStart1 := time.Now()

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		var total, mapped uint64
		var speed float64 // k reads/second
		mismatches := make([]float64, 0, 1024)

		fmt.Fprintf(outfh, "query\tqlen\tpos\tmismatches\tcandidates\n")

		printResult := func(q *Query) {
			total++

			if verbose {
				if (total < 4096 && total&63 == 0) || total&4095 == 0 {
					speed = float64(total) / 1000000 / time.Since(timeStart1).Minutes()
					fmt.Fprintf(os.Stderr, "processed reads: %d, speed: %.3f million reads per minute\r", total, speed)
				}
			}

			if q.result == nil { // unmapped
				fmt.Fprintf(outfh, "%s\t%d\t-1\t-1\t0\n", q.seqID, len(q.seq))
				poolQuery.Put(q)
				return
			}

			mapped++
			mismatches = append(mismatches, float64(q.result.Mismatches))

			fmt.Fprintf(outfh, "%s\t%d\t%d\t%d\t%d\n",
				q.seqID, len(q.seq), q.result.Pos+1, q.result.Mismatches, q.result.Candidates)

			idx.RecycleSearchResult(q.result)
			poolQuery.Put(q)
		}

		// outputter. Results are written in input order: queries carry
		// a serial id, out-of-order arrivals wait in a buffer.
		ch := make(chan *Query, opt.NumCPUs)
		done := make(chan int)
		go func() {
			buf := make(map[uint64]*Query, opt.NumCPUs*2)
			var id uint64 = 1
			for q := range ch {
				if q.id != id {
					buf[q.id] = q
					continue
				}

				printResult(q)
				id++

				for {
					q2, ok := buf[id]
					if !ok {
						break
					}
					delete(buf, id)
					printResult(q2)
					id++
				}
			}
			done <- 1
		}()

		var wg sync.WaitGroup
		tokens := make(chan int, opt.NumCPUs)

		var record *fastx.Record
		var nSent uint64
	READS:
		for _, file := range files {
			fastxReader, err := fastx.NewReader(nil, file, "")
			checkError(err)

			for {
				record, err = fastxReader.Read()
				if err != nil {
					if err == io.EOF {
						break
					}
					checkError(err)
					break
				}

				if maxReads > 0 && nSent >= uint64(maxReads) {
					fastxReader.Close()
					break READS
				}

				query := poolQuery.Get().(*Query)
				query.Reset()

				nSent++
				query.id = nSent
				query.seqID = append(query.seqID, record.ID...)
				query.seq = append(query.seq, record.Seq.Seq...)

				tokens <- 1
				wg.Add(1)

				go func(query *Query) {
					defer func() {
						<-tokens
						wg.Done()
					}()

					var err error
					query.result, err = idx.Search(query.seq)
					if err != nil {
						checkError(errors.Wrapf(err, "read %s", query.seqID))
					}

					ch <- query
				}(query)
			}
			fastxReader.Close()
		}
		wg.Wait()
		close(ch)
		<-done

		if outputLog {
			if verbose {
				fmt.Fprintf(os.Stderr, "\n")
			}

			speed = float64(total) / 1000000 / time.Since(timeStart1).Minutes()
			log.Infof("")
			log.Infof("processed reads: %d, speed: %.3f million reads per minute", total, speed)
			if total > 0 {
				log.Infof("%.4f%% (%d/%d) reads mapped", float64(mapped)/float64(total)*100, mapped, total)
			}
			if len(mismatches) > 0 {
				mean, stdev := stat.MeanStdDev(mismatches, nil)
				if len(mismatches) == 1 {
					stdev = 0
				}
				log.Infof("mismatches of mapped reads: mean %.3f, stdev %.3f", mean, stdev)
			}
			log.Infof("done mapping")
			if outFile != "-" {
				log.Infof("mapping results saved to: %s", outFile)
			}
		}
	},
}

// readSingleRecord reads the reference sequence. Only the first
// record of a multi-record file is used.
func readSingleRecord(file string) (id string, s []byte) {
	fastxReader, err := fastx.NewReader(nil, file, "")
	checkError(errors.Wrap(err, file))
	defer fastxReader.Close()

	var n int
	for {
		record, err := fastxReader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			checkError(errors.Wrap(err, file))
			break
		}

		n++
		if n == 1 {
			id = string(record.ID)
			s = make([]byte, len(record.Seq.Seq))
			copy(s, record.Seq.Seq)
		}
	}
	if n == 0 {
		checkError(fmt.Errorf("no sequence found in reference file: %s", file))
	}
	if n > 1 {
		log.Warningf("%d extra records in %s ignored, mapping against the first one only", n-1, file)
	}
	return id, s
}

func init() {
	RootCmd.AddCommand(mapCmd)

	mapCmd.Flags().StringP("reference", "r", "",
		formatFlagUsage(`Reference sequence (FASTA format, optionally gzipped).`))

	mapCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports and recommends a ".gz" suffix ("-" for stdout).`))

	mapCmd.Flags().IntP("kmer-len", "k", 20,
		formatFlagUsage(`K-mer (seed) length for indexing the reference.`))

	mapCmd.Flags().IntSliceP("seed-offsets", "s", []int{0, 20, 40, 60, 80},
		formatFlagUsage(`Read offsets to extract seeds at. Offsets beyond the read length are skipped.`))

	mapCmd.Flags().StringP("infile-list", "X", "",
		formatFlagUsage(`File of input file paths (one per line), appended to the positional arguments.`))

	mapCmd.Flags().IntP("max-reads", "n", 0,
		formatFlagUsage(`Maximum number of reads to map (0 for no limit).`))

	mapCmd.SetUsageTemplate(usageTemplate("-r ref.fasta [reads.fq.gz ...] [-o reads.tsv.gz]"))
}

// Query binds a read to its mapping result while it travels through
// the worker pool.
type Query struct {
	id     uint64 // serial number for restoring input order
	seqID  []byte
	seq    []byte
	result *index.SearchResult
}

func (q *Query) Reset() {
	q.seqID = q.seqID[:0]
	q.seq = q.seq[:0]
	q.result = nil
}

var poolQuery = &sync.Pool{New: func() interface{} {
	return &Query{
		seqID: make([]byte, 0, 128),
		seq:   make([]byte, 0, 1<<10),
	}
}}
