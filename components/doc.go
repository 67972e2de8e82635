// Package components defines the ECS components that make up a walker.
package components
