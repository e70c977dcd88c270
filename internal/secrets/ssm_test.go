package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSSM serves canned parameters and records requests.
type fakeSSM struct {
	params map[string]string
	err    error

	lastNames      []string
	lastDecryption bool
	puts           map[string]string
}

func (f *fakeSSM) GetParameters(ctx context.Context, in *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error) {
	f.lastNames = in.Names
	f.lastDecryption = aws.ToBool(in.WithDecryption)
	if f.err != nil {
		return nil, f.err
	}

	out := &ssm.GetParametersOutput{}
	for _, name := range in.Names {
		if v, ok := f.params[name]; ok {
			out.Parameters = append(out.Parameters, types.Parameter{
				Name:  aws.String(name),
				Value: aws.String(v),
			})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func (f *fakeSSM) PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	if f.puts == nil {
		f.puts = make(map[string]string)
	}
	f.puts[aws.ToString(in.Name)] = aws.ToString(in.Value)
	return &ssm.PutParameterOutput{}, nil
}

func TestSSMFetch(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{
		"/plc/secure/ip-address": "10.0.0.12",
		"/plc/secure/mqtt-topic": "plant/line-1/plc",
		"/plc/secure/gateway-id": "gw-042",
	}}
	provider := &SSM{client: fake, namespace: DefaultNamespace}

	params, err := provider.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.12", params.PLCAddress)
	assert.Equal(t, "plant/line-1/plc", params.MQTTTopic)
	assert.Equal(t, "gw-042", params.GatewayID)

	assert.True(t, fake.lastDecryption, "secure strings require decryption")
	assert.Len(t, fake.lastNames, 3)
}

func TestSSMFetch_PartialSetFailsClosed(t *testing.T) {
	fake := &fakeSSM{params: map[string]string{
		"/plc/secure/ip-address": "10.0.0.12",
	}}
	provider := &SSM{client: fake, namespace: DefaultNamespace}

	_, err := provider.Fetch(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ElementsMatch(t, []string{KeyMQTTTopic, KeyGatewayID}, fetchErr.Missing)
}

func TestSSMFetch_APIError(t *testing.T) {
	fake := &fakeSSM{err: errors.New("throttled")}
	provider := &SSM{client: fake, namespace: DefaultNamespace}

	_, err := provider.Fetch(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorContains(t, err, "throttled")
}

func TestSSMPut(t *testing.T) {
	fake := &fakeSSM{}
	provider := &SSM{client: fake, namespace: DefaultNamespace}

	require.NoError(t, provider.Put(context.Background(), KeyGatewayID, "gw-042"))
	assert.Equal(t, "gw-042", fake.puts["/plc/secure/gateway-id"])
}

func TestStaticProvider(t *testing.T) {
	provider := &Static{Params: Params{PLCAddress: "10.0.0.1"}}
	params, err := provider.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", params.PLCAddress)
}
