// Package query validates and normalizes audit record queries before
// storage backends execute them. Sort fields and orders are whitelisted
// so user input never reaches SQL string construction unchecked.
package query
