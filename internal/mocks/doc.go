// Package mocks holds testify mocks of the model interfaces.
package mocks
