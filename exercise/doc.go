// Package exercise loads practice exercises from YAML and grades them by
// running their source through the interpreter.
//
// An exercise file holds a list of exercises:
//
//	exercises:
//	  - name: even squares
//	    source: |
//	      print([x*x for x in range(5) if x%2==0])
//	    expect: ["[0, 4, 16]"]
//	    assert:
//	      - len(output) == 1
//	      - error == ""
//
// An exercise passes when its output equals expect (when given), its error
// contains raises (when given; otherwise the run must succeed) and every
// assert expression evaluates to true. Assertions are expr-lang expressions
// over the variables output, error, lines and name.
package exercise
