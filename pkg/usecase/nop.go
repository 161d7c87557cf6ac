package usecase

import (
	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/m-mizutani/fplfetch/pkg/domain/model"
)

type nopProgressFactory struct{}

func (nopProgressFactory) Start(int64) interfaces.Progress { return nopProgress{} }

type nopProgress struct{}

func (nopProgress) Add(int) error { return nil }
func (nopProgress) Close() error  { return nil }

type nopConsole struct{}

func (nopConsole) Notice(string)  {}
func (nopConsole) Success(string) {}

type nopRecorder struct{}

func (nopRecorder) RecordFetch(model.FetchOutcome) {}
func (nopRecorder) AddDownloadedBytes(int64)        {}
