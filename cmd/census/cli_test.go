package main

import (
	"bytes"
	"testing"

	"census/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laTable(t *testing.T) *models.Table {
	t.Helper()
	table := models.NewTable(1)
	require.NoError(t, table.AddColumn(models.NewIntColumn("geoid", []int64{6037})))
	require.NoError(t, table.AddColumn(models.NewStringColumn("name", []string{"Los Angeles County, California"})))
	require.NoError(t, table.AddColumn(models.NewFloatColumn("pop", []float64{10014009})))
	return table
}

func TestWriteTable_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, laTable(t), "csv"))
	assert.Equal(t, "geoid,name,pop\n6037,\"Los Angeles County, California\",10014009\n", buf.String())
}

func TestWriteTable_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTable(&buf, laTable(t), "json"))
	assert.JSONEq(t, `{"columns":[{"name":"geoid","type":"int"},{"name":"name","type":"string"},{"name":"pop","type":"float"}],"rows":[[6037,"Los Angeles County, California",10014009]]}`, buf.String())
}

func TestWriteTable_UnknownFormat(t *testing.T) {
	assert.Error(t, writeTable(&bytes.Buffer{}, laTable(t), "xml"))
}

func TestBuildDecennialRequest(t *testing.T) {
	decYear, decGeography, decDataset, decState = 2020, "tract", "dhc", ""
	decCounties = []string{"06001", " 06013 "}
	decGroups = []string{"pop=P1_001N", "white=P1_003N,P1_011N"}

	req, err := buildDecennialRequest()
	require.NoError(t, err)
	assert.Equal(t, models.GeographyTract, req.Geography)
	assert.Equal(t, []models.CountyFIPS{"06001", "06013"}, req.CountyIDs)
	assert.Equal(t, []string{"pop", "white"}, req.Groups.Names())

	decGroups = []string{"broken"}
	_, err = buildDecennialRequest()
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"NAME", "B01001_001E"}, splitList("NAME, B01001_001E,"))
	assert.Nil(t, splitList(""))
}
