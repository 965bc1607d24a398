// Package application provides application initialization and dependency
// wiring. It encapsulates the creation of the config store, the Ollama
// client, and the file watcher, making the main package cleaner and more
// focused on CLI parsing and orchestration.
package application
