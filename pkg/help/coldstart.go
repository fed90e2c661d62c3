package help

const ColdstartYAML = `# bigram Quick Start

job:
  mapper: "one stripe {right: 1} per adjacent word pair, keyed by the left word"
  combiner: "merges stripes per key; output is identical with or without it"
  reducer: "left<TAB><TAB>total, then left<TAB>right<TAB>count/total per right word"

commands:
  basic_run: |
    bigram run --input corpus/ --output out

  several_reducers: |
    bigram run --input a.txt --input b.txt --output out --reducers 4

  from_the_web: |
    bigram run --input https://example.com/article.html --output out --cache-dir .cache --cache-ttl 24h

  config_file: |
    bigram run --config job.yaml --reducers 2

  streaming: |
    cat corpus/*.txt | bigram map | LC_ALL=C sort | bigram combine | LC_ALL=C sort | bigram reduce

  list_runs: |
    bigram runs

  run_details: |
    bigram show 5

  lookup_word: |
    bigram query the
    bigram query --run 5 the

key_files:
  - "out/part-r-00000 .. part-r-NNNNN (one per reducer, keys ascending)"
  - "out/_SUCCESS (written after every part file)"
  - "out/_summary.yaml (counters, timing, top left words)"
  - "bigram.db (run history and stored bigrams)"

invariants:
  - "Frequencies for one left word sum to 1"
  - "Each left word is reduced exactly once, in exactly one part file"
  - "Output is byte-identical across re-runs, mapper counts, spill sizes and combiner use"
  - "The output directory is removed before the job starts"

error_behavior:
  - "Invalid configuration or inputs: nothing processed, exit 2"
  - "Failed tasks are retried up to --max-attempts; an empty group is never retried"
  - "Job failure: run recorded as failed, no _SUCCESS marker, exit 1"
`
