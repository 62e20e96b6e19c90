// Package domain contains the core entities of the item-generation pipeline:
// work units, generated content, quality verdicts and per-unit results. It is
// independent of any specific infrastructure or delivery mechanism.
package domain
