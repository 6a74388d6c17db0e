// Package scan runs the card number detector over files, standard input and
// git diffs, and collects the results into a [Report].
//
// File inputs are fanned out across a bounded number of workers. Every
// finding carries its path and 1-based line and column, and the matched
// number only ever leaves this package masked.
package scan
