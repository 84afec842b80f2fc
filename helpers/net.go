package helpers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/boostrole/boostrole/version"
	"github.com/pkg/errors"
)

var DEFAULT_UA = "BoostRole/" + version.BOT_VERSION + " (https://github.com/boostrole/boostrole)"

const netTimeout = 15 * time.Second

// NetGet executes a GET request to url with the default user-agent
func NetGet(ctx context.Context, url string) ([]byte, error) {
	return NetGetUA(ctx, url, DEFAULT_UA)
}

// NetGetUA performs a GET request with a custom user-agent, bound to ctx
func NetGetUA(ctx context.Context, url string, useragent string) ([]byte, error) {
	client := &http.Client{
		Timeout: netTimeout,
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	request.Header.Set("User-Agent", useragent)

	response, err := client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, errors.New("expected status 200; got " + strconv.Itoa(response.StatusCode))
	}

	buf := bytes.NewBuffer(nil)
	_, err = io.Copy(buf, response.Body)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
