// Package correlation implements the cleaned-correlation engine: complete-case
// row filtering, single-pass Tukey-fence outlier removal, and pairwise Pearson
// correlation over the surviving rows.
//
// The package is pure computation. It performs no I/O and holds no state, so
// every function is directly unit-testable and safe for concurrent use.
package correlation
