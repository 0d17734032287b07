package internal

//go:generate mockgen -destination=./mocks/library_client_mock.go -package=mocks github.com/mmcdole/libdesk/internal/domain LibraryClient
