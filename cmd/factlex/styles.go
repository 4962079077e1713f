package main

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	predicateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	kindStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	spanStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	countStyle     = lipgloss.NewStyle().Bold(true)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)
