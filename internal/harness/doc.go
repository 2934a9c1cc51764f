// Package harness runs build scenarios against the pipeline driver.
//
// A scenario describes a source tree, how the toolchain should behave, and a
// flow of build and clean runs. The harness materializes the tree in a
// temporary root, drives pipeline.Driver with a scripted fake toolchain, and
// records every run, step and artifact as a trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config: |
//	  build: profile: "debug"
//	files:
//	  src/asm/boot.s: "_start:\n"
//	  src/c/entry.c: "void c_entry(void) {}\n"
//	toolchain:
//	  fail:
//	    - match: entry.c
//	      code: 1
//	  missing: [riscv64-elf-ld]
//	  skip_output: [riscv64-elf-as]
//	  no_library: true
//	flow:
//	  - run: build
//	    expect:
//	      state: done
//	  - run: clean
//	    remove: [src/c/entry.c]
//	  - run: build
//	    skip_output: [riscv64-elf-as]
//	    expect:
//	      state: failed
//	      error: E207
//	assertions:
//	  - type: command_order
//	    commands: [riscv64-elf-as, cargo build]
//	  - type: file_exists
//	    path: marrakech.elf
//
// # Assertion Types
//
//   - command_contains: some spawned command line contains the text
//   - command_order: matching commands were spawned in this order
//   - command_count: exactly N spawned command lines contain the text
//   - file_exists / file_absent: state of a root-relative path after the flow
//   - file_contains: a root-relative file contains the text
//   - manifest_equal / manifest_differs: manifest hashes of two flow runs
//
// # Deterministic Testing
//
// Every scenario uses a fixed run id and a logical clock that is reset
// before each run, so the same scenario always yields the same trace.
// RunWithGolden compares that trace with testdata/golden/{name}.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/kernel.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
