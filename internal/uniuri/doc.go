// Package uniuri generates uniform, unbiased random strings over a chosen
// alphabet. It backs api keys, registration hashes and the throwaway
// passwords assigned to externally provisioned accounts.
package uniuri
