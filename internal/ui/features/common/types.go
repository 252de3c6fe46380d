// Package common provides shared types and utilities for UI features.
package common

// NavItem is one entry of the resource navigation.
type NavItem struct {
	Name   string
	Title  string
	Href   string
	Active bool
}

// ShellData holds data needed for the page shell rendering.
type ShellData struct {
	Title       string
	Nav         []NavItem
	CurrentPath string
	IsDev       bool
}
