// Package eligibility normalizes dental eligibility responses. It flattens
// the "Others" catch-all into per-procedure services, projects a service's
// records into by-benefit or by-network grid rows, and patches remaining
// usage back into the stored record list. Every function is pure: inputs are
// never modified and nothing is retained between calls.
package eligibility
