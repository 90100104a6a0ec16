package database

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-eval-api/internal/config"
)

func TestConnectSQLiteInMemory(t *testing.T) {
	db, err := Connect(config.DriverSQLite, "file:connect_test?mode=memory&cache=shared")
	require.NoError(t, err)

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	require.Equal(t, 1, one)
}

func TestConnectRejectsBadInput(t *testing.T) {
	_, err := Connect("mysql", "dsn")
	require.Error(t, err)

	_, err = Connect(config.DriverPostgres, "")
	require.Error(t, err)

	_, err = ConnectSQLite("")
	require.Error(t, err)

	_, err = ConnectNATS("", "test")
	require.Error(t, err)

	_, err = ConnectRedis("")
	require.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := ConnectRedis("redis://" + mr.Addr())
	require.NoError(t, err)
	defer client.Close()
}
