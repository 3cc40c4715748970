// Package ir provides the interface model and compiled artifact types for arrpc.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal. This keeps the
// model the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - values are IRValue, which has no float variant
//   - Shapes are derived from an Interface on demand, never stored on it
//   - Compiled artifacts are immutable once produced by the compiler
//   - All JSON tags use snake_case
package ir
